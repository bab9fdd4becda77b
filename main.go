package main

import "github.com/AzielCF/az-typing/cmd"

func main() {
	cmd.Execute()
}
