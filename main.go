package main

import "mixlens/cmd"

func main() {
	cmd.Execute()
}
