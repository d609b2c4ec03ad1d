// Package logger wraps zap with a global sugared logger, context helpers
// and level parsing.
//
// Every bootstrap stage receives a context and logs through the logger
// stored in it, so stage names and fields travel with the call chain.
package logger
