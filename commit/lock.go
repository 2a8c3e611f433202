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

import "github.com/gofrs/flock"

// FileLock wraps an advisory file lock on the well-known
// ".commit-lock" path of §6, serializing commits across the host the
// way the original implementation's get_commit_lock did with flock(2).
type FileLock struct {
	f *flock.Flock
}

// NewFileLock builds a Locker over path (typically ".commit-lock"
// under the template/storage root).
func NewFileLock(path string) *FileLock {
	return &FileLock{f: flock.New(path)}
}

// TryLock implements Locker.
func (l *FileLock) TryLock() (bool, error) {
	return l.f.TryLock()
}

// Unlock implements Locker.
func (l *FileLock) Unlock() error {
	return l.f.Unlock()
}
