// Copyright 2024 The Confd Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package confdenv binds the §6 environment contract
// (ACTIVE_ROOT/CHANGES_ROOT/WORKING_ROOT/TMP_ROOT/TEMPLATE_ROOT/
// EDIT_LEVEL/TEMPLATE_LEVEL/COMMIT_ACTION/SIBLING_POSITION) and builds
// the shared core stack (store, registry, validator, session, query
// facade, commit engine) every cmd/* entry point needs, so each of the
// twelve binaries only has to write its own verb-specific logic.
package confdenv

import (
	"sort"
	"strings"

	"github.com/golang/glog"
	"github.com/spf13/viper"
	"golang.org/x/exp/maps"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/runner"
)

// Env is the §6 environment contract, bound from the process
// environment via viper (the same spf13/viper.BindEnv + AutomaticEnv
// pattern the teacher uses for --config_file in gnmidiff/cmd/root.go).
type Env struct {
	ActiveRoot      string
	ChangesRoot     string
	WorkingRoot     string
	TmpRoot         string
	TemplateRoot    string
	EditLevel       string
	TemplateLevel   string
	CommitAction    string
	SiblingPosition string
}

var envKeys = []string{
	"ACTIVE_ROOT", "CHANGES_ROOT", "WORKING_ROOT", "TMP_ROOT", "TEMPLATE_ROOT",
	"EDIT_LEVEL", "TEMPLATE_LEVEL", "COMMIT_ACTION", "SIBLING_POSITION",
}

// Load reads the environment contract via viper.AutomaticEnv; BuildStack
// calls it before every cmd/* verb runs.
func Load() Env {
	for _, k := range envKeys {
		viper.BindEnv(k)
	}
	viper.AutomaticEnv()
	return Env{
		ActiveRoot:      viper.GetString("ACTIVE_ROOT"),
		ChangesRoot:     viper.GetString("CHANGES_ROOT"),
		WorkingRoot:     viper.GetString("WORKING_ROOT"),
		TmpRoot:         viper.GetString("TMP_ROOT"),
		TemplateRoot:    viper.GetString("TEMPLATE_ROOT"),
		EditLevel:       viper.GetString("EDIT_LEVEL"),
		TemplateLevel:   viper.GetString("TEMPLATE_LEVEL"),
		CommitAction:    viper.GetString("COMMIT_ACTION"),
		SiblingPosition: viper.GetString("SIBLING_POSITION"),
	}
}

// RunnerEnv adapts Env to runner.Env, the subset an action-program
// invocation is actually run under.
func (e Env) RunnerEnv() runner.Env {
	return runner.Env{
		ActiveRoot:      e.ActiveRoot,
		ChangesRoot:     e.ChangesRoot,
		WorkingRoot:     e.WorkingRoot,
		TmpRoot:         e.TmpRoot,
		TemplateRoot:    e.TemplateRoot,
		EditLevel:       e.EditLevel,
		TemplateLevel:   e.TemplateLevel,
		CommitAction:    e.CommitAction,
		SiblingPosition: e.SiblingPosition,
	}
}

// EditPath splits EDIT_LEVEL, a slash-joined escaped path, into path
// components; an unset or root EDIT_LEVEL yields nil (the root).
func (e Env) EditPath() []string {
	if e.EditLevel == "" || e.EditLevel == "/" {
		return nil
	}
	parts := strings.Split(strings.Trim(e.EditLevel, "/"), "/")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p == "" {
			continue
		}
		out = append(out, cpath.Unescape(p))
	}
	return out
}

// DumpEnv logs every bound environment-contract key at glog.V(1), in
// sorted order so the line is reproducible across runs; golang.org/x/exp/maps
// supplies the key set, which viper.AllSettings returns with no
// ordering guarantee of its own.
func DumpEnv() {
	if !glog.V(1) {
		return
	}
	settings := viper.AllSettings()
	keys := maps.Keys(settings)
	sort.Strings(keys)
	for _, k := range keys {
		glog.V(1).Infof("confdenv: %s=%v", k, settings[k])
	}
}
