// Package builtin describes the tools the hosting agent implements itself.
//
// mcpbridge does not execute these tools. It only publishes their specs and
// usage descriptions next to the tools discovered from MCP servers, so the agent
// can hand one uniform tool list to the model.
package builtin

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/mcpjungle/mcpbridge/pkg/types"
)

// Tool is a built-in tool of the hosting agent.
type Tool struct {
	Name string

	// Description is the short description placed in the tool spec.
	Description string

	// Usage is the longer, system-prompt oriented description of how to use the tool.
	Usage string

	// input is a pointer to the zero value of the tool's input struct.
	input any
}

type ReadFileInput struct {
	Path   string `json:"path" jsonschema:"required,description=Absolute or workspace-relative path of the file"`
	Offset int    `json:"offset,omitempty" jsonschema:"minimum=0,description=Line to start reading from"`
	Limit  int    `json:"limit,omitempty" jsonschema:"minimum=1,description=Maximum number of lines to read"`
}

type WriteFileInput struct {
	Path    string `json:"path" jsonschema:"required,description=Path of the file to create or overwrite"`
	Content string `json:"content" jsonschema:"required,description=Full new content of the file"`
}

type ListDirectoryInput struct {
	Path      string `json:"path" jsonschema:"required,description=Directory to list"`
	Recursive bool   `json:"recursive,omitempty" jsonschema:"description=List subdirectories too"`
}

type SearchFilesInput struct {
	Pattern string `json:"pattern" jsonschema:"required,description=Regular expression to search for"`
	Path    string `json:"path,omitempty" jsonschema:"description=Directory to search in (the workspace root when empty)"`
	Glob    string `json:"glob,omitempty" jsonschema:"description=Only search files matching this glob"`
}

type RunCommandInput struct {
	Command   string `json:"command" jsonschema:"required,description=Shell command to run"`
	Cwd       string `json:"cwd,omitempty" jsonschema:"description=Working directory of the command"`
	TimeoutMs int    `json:"timeout_ms,omitempty" jsonschema:"minimum=1,description=Kill the command after this many milliseconds"`
}

type WebFetchInput struct {
	URL string `json:"url" jsonschema:"required,format=uri,description=http or https URL to fetch"`
}

var tools = []Tool{
	{
		Name:        "read_file",
		Description: "Read the contents of a file",
		Usage: "Reads a text file and returns its contents with line numbers. " +
			"Use offset and limit to page through large files instead of reading them whole.",
		input: &ReadFileInput{},
	},
	{
		Name:        "write_file",
		Description: "Create or overwrite a file",
		Usage: "Writes the given content to a file, creating parent directories as needed. " +
			"The previous content is replaced entirely, so read the file first when editing.",
		input: &WriteFileInput{},
	},
	{
		Name:        "list_directory",
		Description: "List the entries of a directory",
		Usage:       "Lists files and directories under a path. Set recursive to walk subdirectories.",
		input:       &ListDirectoryInput{},
	},
	{
		Name:        "search_files",
		Description: "Search file contents with a regular expression",
		Usage: "Searches files for lines matching a regular expression and returns the matches with their paths " +
			"and line numbers. Narrow the search with path and glob.",
		input: &SearchFilesInput{},
	},
	{
		Name:        "run_command",
		Description: "Run a shell command",
		Usage: "Runs a shell command and returns its exit code, stdout and stderr. " +
			"Commands that never exit must be given a timeout.",
		input: &RunCommandInput{},
	},
	{
		Name:        "web_fetch",
		Description: "Fetch a web page",
		Usage:       "Fetches a URL over http(s) and returns the response body converted to text.",
		input:       &WebFetchInput{},
	},
}

// Tools returns the built-in tool table.
func Tools() []Tool {
	out := make([]Tool, len(tools))
	copy(out, tools)
	return out
}

// Lookup returns the built-in tool with the given name.
func Lookup(name string) (Tool, bool) {
	for _, t := range tools {
		if t.Name == name {
			return t, true
		}
	}
	return Tool{}, false
}

// Names returns the sorted names of all built-in tools.
func Names() []string {
	names := make([]string, 0, len(tools))
	for _, t := range tools {
		names = append(names, t.Name)
	}
	sort.Strings(names)
	return names
}

// Descriptions maps every built-in tool name to its usage description.
func Descriptions() map[string]string {
	m := make(map[string]string, len(tools))
	for _, t := range tools {
		m[t.Name] = t.Usage
	}
	return m
}

// Specs returns the normalized tool spec of every built-in tool, in table order.
func Specs() ([]types.ToolSpec, error) {
	specs := make([]types.ToolSpec, 0, len(tools))
	for _, t := range tools {
		s, err := t.Spec()
		if err != nil {
			return nil, err
		}
		specs = append(specs, s)
	}
	return specs, nil
}

// Spec returns the normalized tool spec of the tool, with its input schema reflected from the input struct.
func (t Tool) Spec() (types.ToolSpec, error) {
	schema, err := reflectSchema(t.input)
	if err != nil {
		return types.ToolSpec{}, fmt.Errorf("failed to build input schema of built-in tool %s: %w", t.Name, err)
	}
	return types.ToolSpec{
		ToolSpec: types.ToolSpecBody{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: types.ToolInputSchema{JSON: schema},
		},
	}, nil
}

// reflectSchema produces an inline JSON schema for v as a plain JSON value tree.
func reflectSchema(v any) (any, error) {
	r := &jsonschema.Reflector{
		DoNotReference: true,
		ExpandedStruct: true,
	}
	s := r.Reflect(v)

	b, err := json.Marshal(s)
	if err != nil {
		return nil, err
	}
	var out map[string]any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	delete(out, "$schema")
	delete(out, "$id")
	return out, nil
}
