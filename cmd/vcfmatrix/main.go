// Copyright (C) The Vcfmatrix Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package main

import (
	"github.com/popgen-ml/vcfmatrix"
)

func main() {
	vcfmatrix.Main()
}
