// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package xbf

// Fuzz is the go-fuzz entry point, mirroring the teacher's root-level
// fuzz.go: load from bytes, run the one operation worth exercising, report
// success/failure as the 1/0 go-fuzz expects.
func Fuzz(data []byte) int {
	r, err := OpenBytes(data, &Options{})
	if err != nil {
		return 0
	}
	defer r.Close()

	if _, err := r.ReadRootNodeSection(); err != nil {
		return 0
	}
	return 1
}
