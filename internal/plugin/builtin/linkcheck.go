package builtin

import (
	"context"
	"log/slog"

	bferrors "git.home.luguber.info/inful/blogforge/internal/errors"
	"git.home.luguber.info/inful/blogforge/internal/linkcheck"
	"git.home.luguber.info/inful/blogforge/internal/plugin"
)

// LinkCheckName is the registered name of the link checker plugin.
const LinkCheckName = "linkcheck"

// LinkCheck returns the post-build link verification plugin. It runs in the
// post phase so user transforms have already shaped the output. Broken
// internal links are logged as warnings; with strict enabled they fail the
// build instead.
func LinkCheck(outputDir string, strict bool) *plugin.Descriptor {
	return &plugin.Descriptor{
		Name:    LinkCheckName,
		Enforce: plugin.EnforcePost,
		BuildEnd: func(_ context.Context, bc *plugin.BuildContext, buildErr error) error {
			if buildErr != nil {
				// Nothing meaningful to verify after a failed build.
				return nil
			}
			issues, err := linkcheck.CheckDir(outputDir)
			if err != nil {
				return err
			}
			if len(issues) == 0 {
				return nil
			}
			for _, issue := range issues {
				slog.Warn("Broken internal link", "build_id", bc.BuildID, "file", issue.File, "url", issue.URL)
			}
			if strict {
				return bferrors.New(bferrors.CategoryBuild, bferrors.SeverityError, "broken internal links").
					WithContext("count", len(issues))
			}
			return nil
		},
	}
}
