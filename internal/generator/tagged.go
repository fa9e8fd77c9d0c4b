package generator

import (
	"context"
	"fmt"
	"os"
	"regexp"

	"github.com/vk/expgridgo/internal/ctxlog"
)

// tagPattern matches parameter tags in configure files: a parameter name
// between semicolons, e.g. ";steps;".
var tagPattern = regexp.MustCompile(`;([A-Za-z0-9_.-]+);`)

// configureFile writes src to dst with every parameter tag replaced by the
// entity's value. Tags without a matching parameter are left in place and
// logged, so a typo'd parameter name surfaces before the job runs on it.
func configureFile(ctx context.Context, src, dst string, params map[string]string) error {
	logger := ctxlog.FromContext(ctx)

	data, err := os.ReadFile(src)
	if err != nil {
		return fmt.Errorf("failed to read configure file %q: %w", src, err)
	}

	configured := tagPattern.ReplaceAllFunc(data, func(tag []byte) []byte {
		name := string(tag[1 : len(tag)-1])
		if value, ok := params[name]; ok {
			return []byte(value)
		}
		logger.Warn("Unmatched tag in configure file.", "file", src, "tag", name)
		return tag
	})

	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.WriteFile(dst, configured, info.Mode()); err != nil {
		return fmt.Errorf("failed to write configured file %q: %w", dst, err)
	}
	return nil
}
