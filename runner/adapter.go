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

package runner

import (
	"context"

	"github.com/netconfd/confd/validate"
)

// Adapter implements validate.Runner over a Runner, so a caller can set
// it as a validate.Validator's Runner without validate importing
// package runner directly.
type Adapter struct {
	Runner *Runner
}

// Run implements validate.Runner.
func (a Adapter) Run(ctx *validate.EvalContext, command string) (bool, string, error) {
	res, err := a.Runner.Run(context.Background(), command)
	if err != nil {
		return false, "", err
	}
	return res.Ok(), res.Output, nil
}
