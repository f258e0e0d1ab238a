package smt

import (
	"encoding/json"
	"os"

	"github.com/golang/glog"
	"github.com/mitchellh/mapstructure"
)

var ConfigPath = "../../config.json"

// getExecutablePath looks the solver executable up in the config file, falling back to the given default
func getExecutablePath(solver string, fallback string) string {
	bytes, err := os.ReadFile(ConfigPath)
	if err != nil {
		glog.V(1).Infof("cannot read %v, using %q for %v: %v", ConfigPath, fallback, solver, err)
		return fallback
	}

	var inputJson map[string]any
	if err := json.Unmarshal(bytes, &inputJson); err != nil {
		glog.Warningf("cannot parse %v, using %q for %v: %v", ConfigPath, fallback, solver, err)
		return fallback
	}

	var config map[string]string
	if err := mapstructure.Decode(inputJson, &config); err != nil {
		glog.Warningf("invalid solver config in %v: %v", ConfigPath, err)
		return fallback
	}

	path, ok := config[solver]
	if !ok || path == "" {
		return fallback
	}
	return path
}
