package main

import "github.com/oshokin/hy2-bootstrap/cmd/hy2-bootstrap/cmd"

func main() {
	cmd.Execute()
}
