// docgraph turns documents into a queryable knowledge graph.
//
// It extracts text from PDF, DOCX, Markdown, HTML and plain text files or
// URLs, infers concepts, entities and the relationships between them, and
// suggests visualizations. The graph is persisted locally so it can be
// searched from the command line or served to MCP clients.
package main

import (
	"fmt"
	"os"

	"github.com/Benny93/docgraph-go/cmd"
)

func main() {
	cli := cmd.NewCLI()

	if err := cli.Execute(os.Args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
