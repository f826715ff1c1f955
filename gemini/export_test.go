package gemini

// BuildConfig is buildConfig. Exported for testing.
var BuildConfig = buildConfig
