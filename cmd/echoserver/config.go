package main

import "gopkg.in/ini.v1"

// Config is the echoserver behavior configuration, loadable from an
// ini file and overridable from the command line.
type Config struct {
	Listen   string `ini:"listen"`
	Mode     string `ini:"mode"`
	LogLevel string `ini:"log_level"`
	RecvSize int    `ini:"recv_size"`
}

func defaultConfig() Config {
	return Config{
		Listen:   "127.0.0.1:8000",
		Mode:     "echo",
		LogLevel: "info",
		RecvSize: 1024,
	}
}

// loadConfig reads the [echoserver] section of the ini file at path
// on top of the defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	file, err := ini.Load(path)
	if err != nil {
		return cfg, err
	}
	if err := file.Section("echoserver").MapTo(&cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}
