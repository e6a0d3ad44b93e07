// Package utils exposes the ambient helpers shared by repomirror commands.
//
// ConfigurationLoader layers the embedded defaults, an optional configuration
// file and REPOMIRROR_* environment variables through Viper. LoggerFactory
// builds zap loggers for the requested level and encoding, and
// FlushingWriter keeps rendered summaries visible on buffered outputs.
// TruncateText caps response excerpts on a character boundary.
package utils
