package main

import "github.com/abusaleh34/secure-cas-commercial/cmd"

func main() {
	cmd.Execute()
}
