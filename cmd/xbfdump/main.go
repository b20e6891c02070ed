// Copyright 2024 The xbf Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	xbf "github.com/xbfgo/xbf"
)

var (
	disassemble bool
	allSections bool
)

func prettyPrint(buf []byte) string {
	var pretty bytes.Buffer
	if err := json.Indent(&pretty, buf, "", "\t"); err != nil {
		log.Println("JSON indent error:", err)
		return string(buf)
	}
	return pretty.String()
}

func isDirectory(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return info.IsDir()
}

func dumpFile(filename string, cmd *cobra.Command) {
	log.Printf("processing %s", filename)

	r, err := xbf.Open(filename, &xbf.Options{})
	if err != nil {
		log.Printf("error opening %s: %v", filename, err)
		return
	}
	defer r.Close()

	wantDisassemble, _ := cmd.Flags().GetBool("disassemble")
	if wantDisassemble {
		d, err := r.DisassembleRootNodeSection()
		if err != nil {
			log.Printf("error disassembling %s: %v", filename, err)
			return
		}
		out, _ := json.Marshal(d.Commands)
		fmt.Println(prettyPrint(out))
		return
	}

	wantAllSections, _ := cmd.Flags().GetBool("all-sections")
	if wantAllSections {
		for i := range r.Tables().NodeSections {
			d, err := r.DisassembleNodeSection(i)
			if err != nil {
				log.Printf("section %d: %v", i, err)
				continue
			}
			out, _ := json.Marshal(d.Commands)
			fmt.Printf("-- section %d --\n%s\n", i, prettyPrint(out))
		}
		return
	}

	root, err := r.ReadRootNodeSection()
	if err != nil {
		log.Printf("error parsing %s: %v", filename, err)
		return
	}
	out, _ := json.Marshal(root)
	fmt.Println(prettyPrint(out))

	if len(r.Anomalies) > 0 {
		anomalies, _ := json.Marshal(r.Anomalies)
		fmt.Println(prettyPrint(anomalies))
	}
}

func dump(cmd *cobra.Command, args []string) {
	path := args[0]
	if !isDirectory(path) {
		dumpFile(path, cmd)
		return
	}

	var files []string
	filepath.Walk(path, func(p string, f os.FileInfo, err error) error {
		if err == nil && !f.IsDir() {
			files = append(files, p)
		}
		return nil
	})
	for _, f := range files {
		dumpFile(f, cmd)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "xbfdump",
		Short: "An XBF v2 binary XAML parser",
		Long:  "Parses compiled XBF v2 binary XAML files into their object graph or an opcode disassembly trace",
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print version number",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("You are using version 0.0.1")
		},
	}

	dumpCmd := &cobra.Command{
		Use:   "dump",
		Short: "Dumps the file",
		Long:  "Parses the root node section and prints the resulting object graph as JSON",
		Args:  cobra.MinimumNArgs(1),
		Run:   dump,
	}

	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(dumpCmd)

	dumpCmd.Flags().BoolVarP(&disassemble, "disassemble", "", false, "Print the root node section's opcode trace instead of the object graph")
	dumpCmd.Flags().BoolVarP(&allSections, "all-sections", "", false, "Disassemble every node section, not just the root")

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
