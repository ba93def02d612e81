package protocol

import (
	"fmt"
	"os"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/reservoir-data/tap-pushbullet/constants"
	"github.com/reservoir-data/tap-pushbullet/utils/logger"
)

const aboutDescription = "Singer tap for the Pushbullet REST API"

// capabilities the runtime layer implements, surfaced so orchestrators know
// which knobs exist before they render a pipeline around the tap.
var capabilities = []string{
	"catalog",
	"state",
	"discover",
	"about",
	"stream-maps",
	"schema-flattening",
	"batch",
}

type aboutDocument struct {
	Name         string             `json:"name"`
	Description  string             `json:"description"`
	Version      string             `json:"version"`
	Capabilities []string           `json:"capabilities"`
	Settings     *jsonschema.Schema `json:"settings"`
}

// runAbout prints connector metadata together with the settings schema
// reflected from the driver config struct. It needs no config file, so it is
// dispatched before config loading.
func runAbout() error {
	reflector := jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	settings := reflector.Reflect(connector.Spec())

	document := aboutDocument{
		Name:         constants.TapName,
		Description:  aboutDescription,
		Version:      constants.TapVersion,
		Capabilities: capabilities,
		Settings:     settings,
	}

	switch aboutFormat {
	case "json":
		logger.WriteIndented(document)
	case "markdown":
		fmt.Fprint(os.Stdout, renderAboutMarkdown(document))
	default:
		return fmt.Errorf("unknown about format [%s], supported formats are json and markdown", aboutFormat)
	}

	return nil
}

// renderAboutMarkdown produces the human readable settings table for
// `--about --format markdown`, in README-pasteable form.
func renderAboutMarkdown(document aboutDocument) string {
	required := make(map[string]bool)
	if document.Settings != nil {
		for _, name := range document.Settings.Required {
			required[name] = true
		}
	}

	builder := strings.Builder{}
	fmt.Fprintf(&builder, "# `%s`\n\n", document.Name)
	fmt.Fprintf(&builder, "%s\n\n", document.Description)
	fmt.Fprintf(&builder, "Version: `%s`\n\n", document.Version)

	builder.WriteString("## Capabilities\n\n")
	for _, capability := range document.Capabilities {
		fmt.Fprintf(&builder, "* `%s`\n", capability)
	}

	builder.WriteString("\n## Settings\n\n")
	builder.WriteString("| Setting | Required | Type | Description |\n")
	builder.WriteString("|:--------|:--------:|:----:|:------------|\n")
	if document.Settings != nil && document.Settings.Properties != nil {
		for pair := document.Settings.Properties.Oldest(); pair != nil; pair = pair.Next() {
			requirement := "no"
			if required[pair.Key] {
				requirement = "yes"
			}
			fmt.Fprintf(&builder, "| %s | %s | %s | %s |\n", pair.Key, requirement, pair.Value.Type, pair.Value.Description)
		}
	}

	return builder.String()
}
