package media

import (
	"crypto/sha256"
	"fmt"
	"io"
	"os"

	"github.com/ipfs/go-cid"
	"github.com/multiformats/go-multihash"
)

// ContentID computes a CIDv1 (raw codec, SHA-256) over r.
func ContentID(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", fmt.Errorf("cid: read: %w", err)
	}
	mh, err := multihash.Encode(h.Sum(nil), multihash.SHA2_256)
	if err != nil {
		return "", fmt.Errorf("cid: multihash: %w", err)
	}
	return cid.NewCidV1(cid.Raw, mh).String(), nil
}

func (s *Staged) contentID() (string, error) {
	if s.cid != "" {
		return s.cid, nil
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	c, err := ContentID(f)
	if err != nil {
		return "", err
	}
	s.cid = c
	return c, nil
}
