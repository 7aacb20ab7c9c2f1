package cmd

import (
	internalhttp "github.com/atasun/UltraDialer-sub011/internal/http"
	"github.com/atasun/UltraDialer-sub011/internal/sourcer"
	"github.com/spf13/viper"
)

// buildSourcer creates a new sourcer with the default fetchers.
func buildSourcer() sourcer.Sourcer {
	client := internalhttp.NewClient(viper.GetDuration("provider.timeout"))

	fetcher := sourcer.NewCompositeFetcher()
	fetcher.AddFetcher("http", sourcer.NewHTTPFetcher(client))
	fetcher.AddFetcher("https", sourcer.NewHTTPFetcher(client))
	fetcher.AddFetcher("file", sourcer.NewFileFetcher())

	git := sourcer.NewGitFetcher(viper.GetStringMapString("git.tokens"))
	for _, scheme := range []string{"git", "git+https", "git+ssh", "git+file"} {
		fetcher.AddFetcher(scheme, git)
	}
	parser := sourcer.NewYAMLParser()
	return sourcer.NewSourcer(fetcher, parser)
}
