package command

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/chatrelay/chatrelay/internal/domain"
)

const (
	MinImageCount     = 1
	MaxImageCount     = 10
	DefaultImageCount = 1
)

// SupportedImageEdges are the square sizes the image provider accepts, in
// ascending order.
var SupportedImageEdges = []int{256, 512, 1024}

// DefaultImageEdge is used when no size token is given.
const DefaultImageEdge = 512

var (
	countToken = regexp.MustCompile(`(?:^|\s)n=(\d+)(?:\s|$)`)
	sizeToken  = regexp.MustCompile(`(?:^|\s)(\d{1,5})x(\d{1,5})(?:\s|$)`)
)

// ImageArgs is the parsed argument string of an /image command.
type ImageArgs struct {
	Prompt string
	Count  int
	Size   string
}

// ParseImageArgs parses `[n=<count>] [<width>x<height>] <prompt>`. The count
// and size tokens are matched independently, may appear in either order or
// be absent, and are stripped out; whatever remains, trimmed, is the prompt.
// An empty remaining prompt is an argument error even when the raw argument
// string was not empty.
func ParseImageArgs(args string) (ImageArgs, error) {
	rest, countGroups := stripFirstMatch(args, countToken)
	rest, sizeGroups := stripFirstMatch(rest, sizeToken)

	prompt := strings.TrimSpace(rest)
	if prompt == "" {
		return ImageArgs{}, domain.E(domain.KindInvalidArguments, "image prompt is required")
	}

	count := DefaultImageCount
	if countGroups != nil {
		n, err := strconv.Atoi(countGroups[0])
		if err != nil {
			return ImageArgs{}, domain.WrapError(domain.KindInvalidArguments, "invalid image count", err)
		}
		count = clampCount(n)
	}

	edge := DefaultImageEdge
	if sizeGroups != nil {
		w, errW := strconv.Atoi(sizeGroups[0])
		h, errH := strconv.Atoi(sizeGroups[1])
		if errW != nil || errH != nil {
			return ImageArgs{}, domain.E(domain.KindInvalidArguments, "invalid image size")
		}
		edge = SnapImageEdge(w, h)
	}

	return ImageArgs{
		Prompt: prompt,
		Count:  count,
		Size:   fmt.Sprintf("%dx%d", edge, edge),
	}, nil
}

// SnapImageEdge returns the smallest supported square size covering both
// requested dimensions, or the largest supported size when none does.
func SnapImageEdge(width, height int) int {
	for _, edge := range SupportedImageEdges {
		if edge >= width && edge >= height {
			return edge
		}
	}
	return SupportedImageEdges[len(SupportedImageEdges)-1]
}

func clampCount(n int) int {
	if n < MinImageCount {
		return MinImageCount
	}
	if n > MaxImageCount {
		return MaxImageCount
	}
	return n
}

// stripFirstMatch removes the first occurrence of the token pattern from s,
// returning the remaining text and the pattern's capture groups, or nil when
// the pattern does not occur.
func stripFirstMatch(s string, re *regexp.Regexp) (string, []string) {
	m := re.FindStringSubmatchIndex(s)
	if m == nil {
		return s, nil
	}

	groups := make([]string, 0, len(m)/2-1)
	for i := 2; i < len(m); i += 2 {
		groups = append(groups, s[m[i]:m[i+1]])
	}

	return s[:m[0]] + " " + s[m[1]:], groups
}
