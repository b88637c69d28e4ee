// Package main is qrctl, an operator tool that works on a Scanlytics data
// directory without going through the HTTP API.
//
// Usage:
//
//	qrctl token issue --user u1
//	qrctl seed --user u1 --codes 5 --scans 200
//	qrctl dashboard --user u1
//	qrctl scans --user u1 --period 7d
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
