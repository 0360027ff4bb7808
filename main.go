package main

import "os"

func main() {
	NewApp().Run(os.Args)
}
