package mirror

import (
	"fmt"
	"strings"
)

// Placeholders dnf expands in repository definitions.
const (
	ReleaseVarPath = "releases/$releasever/Everything/$basearch/os"
)

// RepoURL rewrites a mirror URL for the given release into a baseurl that
// works for any release and architecture, by replacing the
// releases/<version>/Everything/<arch>/os segment with dnf variables.
func RepoURL(mirrorURL, version, arch string) (string, error) {
	segment := fmt.Sprintf("releases/%s/Everything/%s/os", version, arch)
	if !strings.Contains(mirrorURL, segment) {
		return "", fmt.Errorf("%w: %q not found in %s", ErrReleasePathMissing, segment, mirrorURL)
	}
	return strings.ReplaceAll(mirrorURL, segment, ReleaseVarPath), nil
}
