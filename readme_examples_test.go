package deckmerge_test

import (
	"fmt"
	"log"
	"os"

	"github.com/tsawler/deckmerge"
)

// These examples verify the README code samples compile correctly.
// They are not meant to be run as actual tests since they require files.

func Example_merge() {
	tpl, err := os.ReadFile("template.pptx")
	if err != nil {
		log.Fatal(err)
	}
	src, err := os.ReadFile("quarterly.pptx")
	if err != nil {
		log.Fatal(err)
	}

	out, err := deckmerge.Merge(tpl, src)
	if err != nil {
		log.Fatal(err)
	}
	_ = os.WriteFile("merged.pptx", out, 0o644)
}

func Example_mergeWithOptions() {
	report, err := deckmerge.TemplateFile("template.pptx").
		AppendFile("q1.pptx", "q2.pptx"). // slides appended in this order
		Stretch().                        // fill the template canvas instead of letterboxing
		Concurrency(2).
		WriteFile("merged.pptx")
	if err != nil {
		log.Fatal(err)
	}
	fmt.Println(report)

	for _, w := range report.Warnings {
		fmt.Println("Warning:", w)
	}
}
