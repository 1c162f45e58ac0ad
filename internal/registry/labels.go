package registry

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	log "github.com/sirupsen/logrus"
)

// ExtraLabelPrefix marks environment variables that become extra labels.
const ExtraLabelPrefix = "PALANTIR_EXTRA_LABEL_"

var labelPattern = regexp.MustCompile(`^[0-9A-Za-z_-]+$`)

// Label is a static name/value pair applied to every pushed sample.
type Label struct {
	Name  string
	Value string
}

// LoadExtraLabels collects extra labels from environ, given in os.Environ
// form. The prefix is stripped and the name lower-cased. Pairs whose name or
// value contain anything but letters, digits, '_' and '-' are dropped.
func LoadExtraLabels(environ []string) []Label {
	var labels []Label
	for _, kv := range environ {
		key, value, _ := strings.Cut(kv, "=")
		if !strings.HasPrefix(key, ExtraLabelPrefix) {
			continue
		}

		name := strings.ToLower(strings.TrimPrefix(key, ExtraLabelPrefix))
		if !labelPattern.MatchString(name) || !labelPattern.MatchString(value) {
			log.WithFields(log.Fields{
				"variable": key,
				"value":    value,
			}).Warn("invalid extra label, ignored")
			continue
		}

		log.WithFields(log.Fields{
			"label": name,
			"value": value,
		}).Debug("extra label added")
		labels = append(labels, Label{Name: name, Value: value})
	}
	return labels
}

// ImportURL appends labels to base as extra_label query parameters, the form
// the VictoriaMetrics import API understands.
func ImportURL(base string, labels []Label) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parsing import url: %w", err)
	}
	if len(labels) == 0 {
		return u.String(), nil
	}

	query := u.Query()
	for _, l := range labels {
		query.Add("extra_label", l.Name+"="+l.Value)
	}
	u.RawQuery = query.Encode()
	return u.String(), nil
}
