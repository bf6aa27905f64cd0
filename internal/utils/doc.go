// Package utils exposes reusable helpers consumed by binguard commands.
//
// It houses ConfigurationLoader (Viper with embedded defaults and environment
// overrides), LoggerFactory (zap), FlushingWriter and CommandContextAccessor.
package utils
