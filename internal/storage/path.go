package storage

import (
	"fmt"
	"path"
	"regexp"
	"strings"
	"time"
)

var fileNamePattern = regexp.MustCompile(`^[a-zA-Z0-9][a-zA-Z0-9._ -]{0,127}$`)

// BuildUploadPath places an uploaded file under a date partition so a
// bucket browser groups uploads by day.
func BuildUploadPath(fileName string, uploadTime time.Time) (string, error) {
	if err := validateFileName(fileName); err != nil {
		return "", err
	}
	ts := uploadTime.UTC()
	return path.Join(
		"uploads",
		fmt.Sprintf("date=%04d-%02d-%02d", ts.Year(), ts.Month(), ts.Day()),
		fileName,
	), nil
}

// BuildExportPath names a result export after the relation it came from
// and the export moment, so repeated exports never collide.
func BuildExportPath(relation, format string, exportTime time.Time) (string, error) {
	if err := validateFileName(relation); err != nil {
		return "", err
	}
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "csv", "json", "parquet":
	default:
		return "", fmt.Errorf("unknown export format: %q", format)
	}
	ts := exportTime.UTC()
	return path.Join(
		"exports",
		relation,
		fmt.Sprintf("%04d%02d%02dT%02d%02d%02dZ.%s",
			ts.Year(), ts.Month(), ts.Day(), ts.Hour(), ts.Minute(), ts.Second(), format),
	), nil
}

func validateFileName(value string) error {
	if !fileNamePattern.MatchString(value) {
		return fmt.Errorf("invalid object file name: %q", value)
	}
	return nil
}
