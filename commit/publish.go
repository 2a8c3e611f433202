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

package commit

import (
	"sort"

	"github.com/golang/glog"

	"github.com/netconfd/confd/cpath"
	"github.com/netconfd/confd/errs"
	"github.com/netconfd/confd/store"
)

// publish implements §4.8's "Publication" step: for each priority
// subtree, the succeeded subtrees' working content and the failed
// subtrees' prior active content are copied onto a fresh snapshot,
// broadest subtrees first so a narrower nested subtree's own
// succeeded/failed choice overrides the wider copy its enclosing
// subtree made.
func (e *Engine) publish(subtrees []*subtree) (Outcome, error) {
	ordered := append([]*subtree{}, subtrees...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].root.Path) < len(ordered[j].root.Path)
	})

	builder := e.Store.NewSnapshotBuilder()
	var failed errs.Errors
	for _, st := range ordered {
		if st.succeeded || st.skipped {
			builder.CopySubtreeFromWorking(st.root.Path)
			continue
		}
		builder.CopySubtreeFromActive(st.root.Path)
		failed = errs.AppendErr(failed, errs.New(errs.KindActionFailed, cpath.Copy(st.root.Path), "commit actions failed"))
	}

	e.Store.ReplaceActive(builder.Build())
	e.Store.SetupSession()

	allSucceeded := len(failed) == 0
	if !allSucceeded {
		e.Store.Mark(nil, store.MarkUnsaved)
	}

	status := "SUCCESS"
	switch {
	case len(failed) == len(ordered) && len(ordered) > 0:
		status = "FAILURE"
	case len(failed) > 0:
		status = "PARTIAL"
	}
	glog.Infof("commit: %s (%d/%d subtrees failed)", status, len(failed), len(ordered))

	return Outcome{Status: status, Failed: failed}, nil
}
