package main

import "github.com/iksnae/studio-bridge/cmd"

func main() {
	cmd.Execute()
}
