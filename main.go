/*
Copyright © 2025 NAME HERE <EMAIL ADDRESS>

*/
package main

import "github.com/atasun/UltraDialer-sub011/cmd"

func main() {
	cmd.Execute()
}
