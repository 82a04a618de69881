package cmd

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/teemow/salesmcp/internal/tools"
)

func newGenerateDocsCmd() *cobra.Command {
	var (
		outputFile string
	)

	cmd := &cobra.Command{
		Use:   "generate-docs",
		Short: "Generate MCP tool documentation",
		Long: `Generate markdown documentation for all available MCP tools.
This command builds every tool without initializing it and renders its
descriptor, so the documentation always matches the registered schemas.
No credentials are needed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runGenerateDocs(outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Output file (default: stdout)")

	return cmd
}

func runGenerateDocs(outputFile string) error {
	ctors, err := constructors(tools.Deps{}, nil)
	if err != nil {
		return err
	}

	descriptors := make([]tools.Descriptor, 0, len(ctors))
	for _, construct := range ctors {
		descriptors = append(descriptors, construct().Descriptor())
	}

	markdown := generateToolsMarkdown(descriptors)

	// Write to output
	if outputFile != "" {
		if err := os.WriteFile(outputFile, []byte(markdown), 0644); err != nil {
			return fmt.Errorf("failed to write output file: %w", err)
		}
		fmt.Fprintf(os.Stderr, "Documentation written to: %s\n", outputFile)
	} else {
		fmt.Print(markdown)
	}

	return nil
}

func generateToolsMarkdown(descriptors []tools.Descriptor) string {
	var sb strings.Builder

	sort.Slice(descriptors, func(i, j int) bool {
		return descriptors[i].Name < descriptors[j].Name
	})

	// Header
	sb.WriteString("# MCP Tools Reference\n\n")
	sb.WriteString("This document provides a complete reference of all tools available when running salesmcp as an MCP server.\n\n")
	sb.WriteString("Every tool takes an `action` argument that selects the operation; the other arguments depend on the action.\n\n")
	sb.WriteString("**Note:** This documentation is automatically generated from the tool definitions.\n\n")

	// Table of contents
	sb.WriteString("## Table of Contents\n\n")
	for _, d := range descriptors {
		sb.WriteString(fmt.Sprintf("- [%s](#%s)\n", d.Name, d.Name))
	}
	sb.WriteString("\n")

	for _, d := range descriptors {
		sb.WriteString(generateToolMarkdown(d))
		sb.WriteString("\n")
	}

	return sb.String()
}

func generateToolMarkdown(d tools.Descriptor) string {
	var sb strings.Builder

	// Tool name
	sb.WriteString(fmt.Sprintf("## %s\n\n", d.Name))

	// Description
	if d.Description != "" {
		sb.WriteString(fmt.Sprintf("%s\n\n", d.Description))
	}

	if actions := actionNames(d); len(actions) > 0 {
		sb.WriteString("**Actions:** ")
		for i, a := range actions {
			if i > 0 {
				sb.WriteString(", ")
			}
			sb.WriteString("`" + a + "`")
		}
		sb.WriteString("\n\n")
	}

	properties, _ := d.InputSchema["properties"].(map[string]any)
	required, _ := d.InputSchema["required"].([]string)

	if len(properties) > 0 {
		sb.WriteString("**Arguments:**\n")

		// Sort properties for consistent output
		propNames := make([]string, 0, len(properties))
		for name := range properties {
			if name != "action" {
				propNames = append(propNames, name)
			}
		}
		sort.Strings(propNames)

		for _, name := range propNames {
			propMap, ok := properties[name].(map[string]any)
			if !ok {
				continue
			}

			requiredStr := "optional"
			if contains(required, name) {
				requiredStr = "required"
			}

			sb.WriteString(fmt.Sprintf("- `%s` (%s, %s): ", name, getPropertyType(propMap), requiredStr))

			// Get description
			if desc, ok := propMap["description"].(string); ok {
				sb.WriteString(desc)
			} else {
				sb.WriteString(fmt.Sprintf("%s parameter", getPropertyType(propMap)))
			}

			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	return sb.String()
}

func getPropertyType(prop map[string]any) string {
	if t, ok := prop["type"].(string); ok {
		return t
	}
	return "any"
}

func contains(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}
