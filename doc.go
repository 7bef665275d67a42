// Command tasksched schedules tasks on Google Calendar and keeps a local
// JSON copy of the task list.
//
// Source files are formatted with golangci-lint. To reformat, run:
//
//	go generate ./...
package main

//go:generate go tool golangci-lint fmt .
