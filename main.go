package main

import "github.com/kamilpajak/redline/cmd/redline"

func main() {
	redline.Execute()
}
