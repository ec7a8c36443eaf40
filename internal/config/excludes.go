package config

// DefaultExcludeDirs returns directory names the scanner never descends
// into. They hold cache blobs, crash dumps, and shader caches that can be
// large and never contain profile databases.
func DefaultExcludeDirs() []string {
	return []string{
		// Firefox
		"cache2",
		"startupCache",
		"crashes",
		"minidumps",
		"thumbnails",
		"shader-cache",

		// Chromium
		"Cache",
		"Code Cache",
		"GPUCache",
		"ShaderCache",
		"GrShaderCache",
		"GraphiteDawnCache",
		"DawnCache",
		"Crashpad",
	}
}
