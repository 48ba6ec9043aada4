package grab

import (
	"bufio"
	"os"
	"path"
	"sort"
	"strings"
)

var vcsDirs = map[string]bool{"CVS": true, "RCS": true, "SCCS": true, ".bzr": true, ".git": true, ".hg": true, ".svn": true}

// Line is one directive line and the file it came from.
type Line struct {
	Text   string
	Source string
	Num    int
}

// GrabFile returns the non-empty lines of myFileName with comments removed.
// With recursive set, a directory is read file by file in name order.
func GrabFile(myFileName string, recursive bool) []Line {
	var newLines []Line
	for _, l := range grabLines(myFileName, recursive) {
		fields := strings.Fields(l.Text)
		myLine := []string{}
		for _, item := range fields {
			if strings.HasPrefix(item, "#") {
				break
			}
			myLine = append(myLine, item)
		}
		m := strings.Join(myLine, " ")
		if m == "" {
			continue
		}
		l.Text = m
		newLines = append(newLines, l)
	}
	return newLines
}

// GrabDict maps the first token of each line to the remaining tokens. Later
// lines for the same key append to earlier ones.
func GrabDict(myFileName string, recursive, empty bool) (map[string][]string, []string) {
	newDict := map[string][]string{}
	order := []string{}
	for _, l := range GrabFile(myFileName, recursive) {
		myLine := strings.Fields(l.Text)
		if len(myLine) < 2 && !empty {
			continue
		}
		if _, ok := newDict[myLine[0]]; !ok {
			order = append(order, myLine[0])
			newDict[myLine[0]] = []string{}
		}
		newDict[myLine[0]] = append(newDict[myLine[0]], myLine[1:]...)
	}
	return newDict, order
}

func recursiveBasenameFilter(f string) bool {
	return (!strings.HasPrefix(f, ".")) && (!strings.HasSuffix(f, "~"))
}

// RecursiveFileList lists the regular files below p in name order, skipping
// VCS directories, dot files and backup files.
func RecursiveFileList(p string) []string {
	st, err := os.Stat(p)
	if err != nil {
		return nil
	}
	if !st.IsDir() {
		if recursiveBasenameFilter(path.Base(p)) {
			return []string{p}
		}
		return nil
	}
	entries, err := os.ReadDir(p)
	if err != nil {
		return nil
	}
	names := []string{}
	for _, e := range entries {
		names = append(names, e.Name())
	}
	sort.Strings(names)
	ret := []string{}
	for _, n := range names {
		if vcsDirs[n] || !recursiveBasenameFilter(n) {
			continue
		}
		ret = append(ret, RecursiveFileList(path.Join(p, n))...)
	}
	return ret
}

func grabLines(fname string, recursive bool) []Line {
	myLines := []Line{}
	if recursive {
		for _, f := range RecursiveFileList(fname) {
			myLines = append(myLines, grabLines(f, false)...)
		}
		return myLines
	}
	f, err := os.Open(fname)
	if err != nil {
		return myLines
	}
	defer f.Close()
	s := bufio.NewScanner(f)
	n := 0
	for s.Scan() {
		n++
		myLines = append(myLines, Line{Text: s.Text(), Source: fname, Num: n})
	}
	return myLines
}
