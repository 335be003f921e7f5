/*
Copyright © 2025 0x007E
*/
package main

func main() {
	Execute()
}
