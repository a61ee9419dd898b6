package main

import "github.com/meysamhadeli/selfie/cmd"

func main() {
	cmd.Execute()
}
