/*
Copyright © 2023 NAME HERE <EMAIL ADDRESS>
*/
package main

import "jetton/cmd"

func main() {
	cmd.Execute()
}
