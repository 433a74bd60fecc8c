package main

import "github.com/oshokin/deb-packager/cmd/deb-packager/cmd"

func main() {
	cmd.Execute()
}
