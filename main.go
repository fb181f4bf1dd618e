package main

import "github.com/AzielCF/az-salesiq/cmd"

func main() {
	cmd.Execute()
}
