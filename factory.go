package fileutils

import (
	"fmt"

	"github.com/puzpuzpuz/xsync/v4"
)

// DriverFactory is a function that creates a FileSystem from a config
type DriverFactory func(cfg *Config) (FileSystem, error)

var driverFactories = xsync.NewMap[string, DriverFactory]()

// RegisterDriver registers a driver factory function. Driver packages call
// this from init; importing a driver for side effects makes it available:
//
//	import _ "github.com/javawizard/fileutils/driver/local"
func RegisterDriver(name string, factory DriverFactory) {
	driverFactories.Store(name, factory)
}

// CreateDriver creates a driver instance from config
func CreateDriver(cfg *Config) (FileSystem, error) {
	factory, exists := driverFactories.Load(cfg.Driver)
	if !exists {
		return nil, fmt.Errorf("driver %s not registered", cfg.Driver)
	}
	return factory(cfg)
}
