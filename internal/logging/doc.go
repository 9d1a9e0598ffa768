// Package logging builds the zap logger shared by the dealcache binary.
package logging
