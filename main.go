package main

import "github.com/patcav/subtrack/cmd"

func main() {
	cmd.Execute()
}
