package main

import "social-fitness-backend/cmd"

func main() {
	cmd.Run()
}
