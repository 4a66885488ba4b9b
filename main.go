// Copyright 2025 The OdontoMapa Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"github.com/odontomapa/odontomapa/cmd"
)

var Version = "development"

func main() {
	cmd.Execute(Version)
}
