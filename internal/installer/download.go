package installer

import (
	"io"
	"net/http"
	"os"

	"github.com/pkg/errors"

	"github.com/vellum-lang/vpm/internal/filehash"
)

// DownloadEngine fetches a URL to a local path; the default is a plain
// net/http GET, but it's a function value (not a hardwired call) so
// configuration can swap in a curl/wget-backed engine the way spec.md §2's
// "download engine" override env var implies, without installer itself
// knowing about config parsing.
type DownloadEngine func(url, dest string) error

// DefaultDownloadEngine streams url's body directly to dest.
func DefaultDownloadEngine(url, dest string) error {
	resp, err := http.Get(url)
	if err != nil {
		return errors.Wrapf(err, "downloading %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("downloading %s: unexpected status %s", url, resp.Status)
	}

	out, err := os.Create(dest)
	if err != nil {
		return errors.Wrapf(err, "creating %s", dest)
	}
	defer out.Close()

	if _, err := io.Copy(out, resp.Body); err != nil {
		return errors.Wrapf(err, "writing %s", dest)
	}
	return nil
}

// DownloadAndVerify fetches url into dest (skipping the fetch entirely if
// dest already exists and its sidecar cache already verifies against
// expected) and confirms the result hashes to expected, implementing
// spec.md §4.5 step 3's cache-state contract. A zero expected hash means no
// file hash is known: dest is fetched and no verification is done.
func DownloadAndVerify(engine DownloadEngine, url, dest string, expected filehash.Hash) (filehash.CacheState, error) {
	if expected == (filehash.Hash{}) {
		return filehash.CacheMissing, engine(url, dest)
	}

	if _, err := os.Stat(dest); err == nil {
		state, ok, err := filehash.Verify(dest, expected)
		if err != nil {
			return state, err
		}
		if ok {
			return state, nil
		}
		// stale or mismatched local copy: re-fetch below.
	}

	if err := engine(url, dest); err != nil {
		return filehash.CacheMissing, err
	}

	state, ok, err := filehash.Verify(dest, expected)
	if err != nil {
		return state, err
	}
	if !ok {
		return state, errors.Errorf("installer: %s does not match expected hash %s after download", dest, expected)
	}
	return state, nil
}
