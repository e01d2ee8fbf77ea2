package config

// builtinTargets is the signature table seeded into a fresh configuration
// file. A name may appear more than once, each entry is an alternative.
var builtinTargets = []struct {
	name string
	all  []string
}{
	{name: "docker", all: []string{"[INFO] [stderr] Error response from daemon:", ": no such file or directory"}},
	{name: "docker", all: []string{"[INFO] [stderr] Error response from daemon:", ": file exists"}},
	{name: "compile_error!", all: []string{"compile_error!"}},
	{name: "missing-env-var", all: []string{"note: this error originates in the macro `env`"}},
	{name: "delimiter missmatch", all: []string{"error: mismatched closing delimiter:"}},
	{name: "no-space", all: []string{"no space left on device"}},
	{name: "linker-bus-error", all: []string{"collect2: fatal error: ld terminated with signal 7 [Bus error]"}},
	{name: "useless-conversion", all: []string{"error: this conversion is useless"}},
	{name: "build-script", all: []string{"[INFO] [stderr] error: failed to run custom build command for"}},
	{name: "download", all: []string{"[INFO] [stderr] error: failed to download"}},
	{name: "linker-undefined-symbol", all: []string{"rust-lld: error: undefined symbol:"}},
	{name: "linker-missing-library", all: []string{"rust-lld: error: unable to find library"}},
	{name: "linker-write-output", all: []string{"rust-lld: error: failed to write output", "No such file or directory"}},
	{name: "include_str-missing-file", all: []string{"note: this error originates in the macro `include_str`"}},
	{name: "include_bytes-missing-file", all: []string{"note: this error originates in the macro `include_bytes`"}},
	{name: "ice", all: []string{"error: internal compiler error:"}},
	{name: "task or parent failed (no space)", all: []string{"this task or one of its parent failed: No space left on device"}},
	{name: "task or parent failed (no space)", all: []string{"this task or one of its parent failed: Io Error: No space left on device"}},
	{name: "task or parent failed (failed to clone)", all: []string{"this task or one of its parent failed: failed to clone"}},
	{name: "invalid manifest", all: []string{"error: failed to parse manifest at"}},
	{name: "invalid manifest", all: []string{"error: invalid table header"}},
	{name: "invalid manifest", all: []string{"error: invalid type: ", ", expected "}},
	{name: "invalid lockfile", all: []string{"error: failed to parse lock file at"}},
	{name: "timeout", all: []string{"[ERROR] error running command: no output for 300 seconds"}},
	{name: "checksum mismatch", all: []string{"error: checksum for ", " changed between lock files"}},
	{name: "links conflict", all: []string{"the package ", " links to the native library ", ", but it conflicts with a previous package which links to ", " as well:"}},
	{name: "links conflict", all: []string{"error: Attempting to resolve a dependency with more than one crate with links="}},
	{name: "version selection failed", all: []string{"error: failed to select a version for "}},
	{name: "missing dep", all: []string{"error: no matching package named ", " found"}},
	{name: "missing dep", all: []string{"error: no matching package found"}},
	{name: "missing dep", all: []string{"no matching package for override ", " found"}},
	{name: "dep removed feature", all: []string{"the package ", " depends on ", ", with features: ", " but ", " does not have these features"}},
	{name: "missing registry", all: []string{"registry index was not found in any configuration:"}},
	{name: "cyclic package dependency", all: []string{"error: cyclic package dependency: package ", " depends on itself. Cycle:"}},
	{name: "cyclic feature dependency", all: []string{"error: cyclic feature dependency: feature ", " depends on itself"}},
	{name: "filename too long", all: []string{"error: unable to create ", ": File name too long"}},
	{name: "invalid UTF-8", all: []string{"stream did not contain valid UTF-8"}},
}

// Default is the configuration written when none exists: failed crates,
// failed runs, and the built-in signature table.
func Default() *Config {
	targets := map[string][]Target{}
	for _, target := range builtinTargets {
		targets[target.name] = append(targets[target.name], Target{All: append([]string(nil), target.all...)})
	}
	return &Config{
		CrateResult: "error",
		RunResult:   "error",
		Targets:     targets,
	}
}
