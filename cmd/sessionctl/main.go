package main

import "go.pilab.hu/sessiond/cmd/sessionctl/cmd"

func main() {
	cmd.Execute()
}
