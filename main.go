package main

import "github.com/kozaktomas/face-station/cmd"

func main() {
	cmd.Execute()
}
