package main

import "github.com/kvasir-lab/doctrans/cmd"

func main() {
	cmd.Execute()
}
