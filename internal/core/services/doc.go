// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
// Services depend only on ports. The one exception is Watcher,
// which owns fsnotify watchers directly.
package services
