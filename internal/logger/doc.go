// Package logger wraps zap with the helpers the bundler uses everywhere:
//   - a global sugared console logger,
//   - context helpers (ToContext/FromContext/WithName/WithKV),
//   - level parsing for the --log-level flag,
//   - leveled shortcuts (Info, InfoKV, ErrorKV, etc.).
//
// Pipeline stages receive a context and log through it, so every line carries
// the run id, target and stage that produced it.
package logger
