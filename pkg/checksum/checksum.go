package checksum

import (
	"context"
	"crypto/md5"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/jzelinskie/whirlpool"
	"github.com/martinlindhe/gogost/gost34112012256"
	"github.com/martinlindhe/gogost/gost34112012512"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
	"golang.org/x/crypto/blake2s"
	"golang.org/x/crypto/ripemd160"
	"golang.org/x/crypto/sha3"
	"golang.org/x/sync/errgroup"

	"github.com/ppphp/portagebrowser/pkg/portage"
)

const hashingBlocksize = 32768

var hashFuncMap = map[string]func() hash.Hash{
	"MD5":         md5.New,
	"SHA1":        sha1.New,
	"SHA256":      sha256.New,
	"SHA512":      sha512.New,
	"RMD160":      ripemd160.New,
	"SHA3_256":    sha3.New256,
	"SHA3_512":    sha3.New512,
	"WHIRLPOOL":   func() hash.Hash { return whirlpool.New() },
	"STREEBOG256": func() hash.Hash { return gost34112012256.New() },
	"STREEBOG512": func() hash.Hash { return gost34112012512.New() },
	"BLAKE2B": func() hash.Hash {
		h, _ := blake2b.New512(nil)
		return h
	},
	"BLAKE2S": func() hash.Hash {
		h, _ := blake2s.New256(nil)
		return h
	},
}

// ValidChecksumKeys lists the supported hash names in sorted order.
func ValidChecksumKeys() []string {
	r := make([]string, 0, len(hashFuncMap))
	for k := range hashFuncMap {
		r = append(r, k)
	}
	sort.Strings(r)
	return r
}

func newHash(hashName string) (hash.Hash, error) {
	f, ok := hashFuncMap[hashName]
	if !ok {
		return nil, errors.Errorf("%s hash function not available", hashName)
	}
	return f(), nil
}

func ChecksumStr(data, hashName string) ([]byte, error) {
	h, err := newHash(hashName)
	if err != nil {
		return nil, err
	}
	h.Write([]byte(data))
	return h.Sum(nil), nil
}

// ChecksumFile returns the hex digest of fname and the number of bytes read.
func ChecksumFile(fname, hashName string) (string, int64, error) {
	h, err := newHash(hashName)
	if err != nil {
		return "", 0, err
	}
	f, err := os.Open(fname)
	if err != nil {
		return "", 0, errors.Wrapf(err, "couldn't open %s", fname)
	}
	defer f.Close()
	n, err := io.CopyBuffer(h, f, make([]byte, hashingBlocksize))
	if err != nil {
		return "", n, errors.Wrapf(err, "couldn't read %s", fname)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}

// HashFilter selects the hashes worth checking. Tokens are hash names, "*"
// for all and "-NAME" or "-*" to exclude; the first matching token wins.
type HashFilter func(string) bool

func NewHashFilter(filterStr string) HashFilter {
	tokens := strings.Fields(strings.ToUpper(filterStr))
	if len(tokens) == 0 || tokens[len(tokens)-1] == "*" {
		tokens = nil
	}
	transparent := len(tokens) == 0
	return func(hashName string) bool {
		if transparent {
			return true
		}
		for _, token := range tokens {
			if token == "*" || token == hashName {
				return true
			} else if token[:1] == "-" {
				if token[1:] == "*" || token[1:] == hashName {
					return false
				}
			}
		}
		return false
	}
}

// MismatchError describes the first check a distfile failed.
type MismatchError struct {
	File     string
	Check    string
	Got      string
	Expected string
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("%s: %s mismatch: got %s, expected %s", e.File, e.Check, e.Got, e.Expected)
}

// VerifyFile checks fname against the recorded size (when size >= 0) and
// every recorded digest the filter accepts. Unknown hash names are skipped;
// a file with nothing left to check is an error.
func VerifyFile(fname string, digests map[string]string, size int64, filter HashFilter) error {
	st, err := os.Stat(fname)
	if err != nil {
		if os.IsNotExist(err) {
			return &portage.NotFoundError{What: "distfile", Path: fname}
		}
		return errors.Wrapf(err, "couldn't stat %s", fname)
	}
	if size >= 0 && st.Size() != size {
		return &MismatchError{File: fname, Check: "size", Got: fmt.Sprint(st.Size()), Expected: fmt.Sprint(size)}
	}
	names := []string{}
	for k := range digests {
		if _, ok := hashFuncMap[k]; ok && (filter == nil || filter(k)) {
			names = append(names, k)
		}
	}
	if len(names) == 0 {
		return errors.Errorf("%s: insufficient data for checksum verification", fname)
	}
	sort.Strings(names)
	for _, k := range names {
		got, _, err := ChecksumFile(fname, k)
		if err != nil {
			return err
		}
		if !strings.EqualFold(got, digests[k]) {
			return &MismatchError{File: fname, Check: k, Got: got, Expected: digests[k]}
		}
	}
	return nil
}

// VerifyVersion checks the distfiles of v found in distDir. Files that have
// not been downloaded are reported with a not-found error. The result maps
// each distfile to nil or the reason it failed.
func VerifyVersion(ctx context.Context, distDir string, v *portage.Version, filter HashFilter) (map[string]error, error) {
	files := make([]string, 0, len(v.Digests))
	for f := range v.Digests {
		files = append(files, f)
	}
	sort.Strings(files)
	res := make([]error, len(files))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, f := range files {
		i, f := i, f
		g.Go(func() error {
			if ctx.Err() != nil {
				return portage.ErrAborted
			}
			size := int64(-1)
			if len(files) == 1 && v.Size > 0 {
				size = v.Size
			}
			res[i] = VerifyFile(filepath.Join(distDir, f), v.Digests[f], size, filter)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	r := make(map[string]error, len(files))
	for i, f := range files {
		r[f] = res[i]
	}
	return r, nil
}
