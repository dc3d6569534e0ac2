package main

import "github.com/oshokin/azure-publisher/cmd/azure-publisher/cmd"

func main() {
	cmd.Execute()
}
