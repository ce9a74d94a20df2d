package main

import "github.com/example/meeting-scheduler/cmd"

func main() {
	cmd.Execute()
}
