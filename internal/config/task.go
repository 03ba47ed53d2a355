// Package config loads and represents per-task TOML configuration files.
//
// Each task is described by a single TOML file named "<task>.toml" in the
// working directory. The shapes here mirror spec.md §3/§6 exactly: TaskConfig
// is the record the rest of the system treats as opaque input, down to the
// verbatim source bytes used by the fingerprint.
package config

// CacheDirName is the cache root directory name, relative to the process
// working directory. It lives here rather than in internal/cachestore so
// that internal/fingerprint can exclude it from input walks without an
// import cycle (cachestore already depends on fingerprint.Fingerprint).
const CacheDirName = ".boost"

// TaskConfig is one task's fully-parsed declaration.
//
// ID and Bytes are not part of the TOML document itself: ID is derived from
// the config filename stem, and Bytes holds the exact file contents so the
// fingerprint can mix in the verbatim config (spec.md §4.1 step 5).
type TaskConfig struct {
	ID          string
	Description string      `toml:"description"`
	Run         string      `toml:"run"`
	DependsOn   []DependsOn `toml:"depends_on"`
	Input       InputSpec   `toml:"input"`
	Output      *OutputSpec `toml:"output"`
	Bytes       []byte      `toml:"-"`
}

// DependsOn names a task this one depends on.
type DependsOn struct {
	Name string `toml:"name"`
}

// InputSpec declares what feeds a task's fingerprint.
//
// Files is a pointer so decoding can distinguish an absent "input.files" key
// (nil: substitute DefaultSelector) from an explicit "files = []" (non-nil,
// empty: contributes nothing to the fingerprint, per spec.md §4.1).
type InputSpec struct {
	Files      *[]Selector `toml:"files"`
	Invariants []string    `toml:"invariants"`
	EnvVars    []string    `toml:"env_vars"`
}

// OutputSpec declares the files a task produces and that get archived/restored.
type OutputSpec struct {
	Files []Selector `toml:"files"`
}

// Selector walks Root for files matching any of Filters.
type Selector struct {
	Root    string   `toml:"root"`
	Filters []string `toml:"filters"`
}

// DefaultSelector is used when InputSpec.Files is absent, per spec.md §3.
func DefaultSelector() Selector {
	return Selector{Root: ".", Filters: []string{"*"}}
}

// EffectiveFiles returns the selectors to walk for this task's inputs,
// substituting DefaultSelector only when "input.files" is absent entirely.
// An explicit "files = []" is a deliberate empty selector set and returns no
// selectors, per spec.md §3/§4.1.
func (c *TaskConfig) EffectiveFiles() []Selector {
	if c.Input.Files == nil {
		return []Selector{DefaultSelector()}
	}
	return *c.Input.Files
}

// DependencyNames returns the ordered list of task names this task depends on.
func (c *TaskConfig) DependencyNames() []string {
	names := make([]string, 0, len(c.DependsOn))
	for _, d := range c.DependsOn {
		if d.Name != "" {
			names = append(names, d.Name)
		}
	}
	return names
}
