// Package main is deskctl, the admin CLI for a running kernel.
//
// Every command is a thin wrapper over the HTTP API: list and launch
// apps, inspect tasks and windows, read and write the virtual file
// system, check kernel health. The kernel address comes from the
// --server flag or the DESKCTL_SERVER environment variable.
//
// Usage:
//
//	deskctl health
//	deskctl apps ls
//	deskctl apps install ./notes/manifest.json
//	deskctl apps launch notes --open /Documents/todo.txt
//	deskctl tasks ls
//	deskctl fs ls /Documents
//	deskctl fs cat /Documents/todo.txt
//	echo "milk" | deskctl fs write /Documents/todo.txt
package main
