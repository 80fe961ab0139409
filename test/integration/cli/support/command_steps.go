package support

import (
	"encoding/json"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterCommandSteps registers steps that run the CLI and inspect its output.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run qrscan without arguments$`, testCtx.iRunQrscanWithoutArguments)
	sc.Step(`^I run qrscan with "([^"]*)"$`, testCtx.iRunQrscanWith)
	sc.Step(`^the exit code should be (\d+)$`, testCtx.theExitCodeShouldBe)
	sc.Step(`^stdout should be exactly:$`, testCtx.stdoutShouldBeExactly)
	sc.Step(`^stdout should be empty$`, testCtx.stdoutShouldBeEmpty)
	sc.Step(`^stdout should contain "([^"]*)"$`, testCtx.stdoutShouldContain)
	sc.Step(`^stderr should contain "([^"]*)"$`, testCtx.stderrShouldContain)
	sc.Step(`^stderr should not contain "([^"]*)"$`, testCtx.stderrShouldNotContain)
	sc.Step(`^the first stderr line should start with "([^"]*)"$`, testCtx.firstStderrLineShouldStartWith)
	sc.Step(`^the trail should list (\d+) attempts ending with "([^"]*)"$`, testCtx.theTrailShouldList)
	sc.Step(`^stdout should list the lines "([^"]*)" and "([^"]*)"$`, testCtx.stdoutShouldListLines)
	sc.Step(`^stdout should be JSON with payload "([^"]*)" and strategy "([^"]*)"$`, testCtx.stdoutShouldBeJSON)
	sc.Step(`^the file "([^"]*)" should contain "([^"]*)"$`, testCtx.theFileShouldContain)
}

func (testCtx *TestContext) iRunQrscanWithoutArguments() error {
	return testCtx.RunCLI(nil)
}

func (testCtx *TestContext) iRunQrscanWith(args string) error {
	fields := strings.Fields(strings.ReplaceAll(args, "{{dir}}", testCtx.TempDir))
	return testCtx.RunCLI(fields)
}

func (testCtx *TestContext) theExitCodeShouldBe(code int) error {
	if testCtx.LastExitCode != code {
		return fmt.Errorf("expected exit code %d (error: %v)\n%s", code, testCtx.LastError, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stdoutShouldBeExactly(want *godog.DocString) error {
	if strings.TrimRight(testCtx.LastStdout, "\n") != strings.TrimRight(want.Content, "\n") {
		return fmt.Errorf("unexpected stdout, want %q\n%s", want.Content, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stdoutShouldBeEmpty() error {
	if testCtx.LastStdout != "" {
		return fmt.Errorf("expected empty stdout\n%s", testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stdoutShouldContain(s string) error {
	if !strings.Contains(testCtx.LastStdout, s) {
		return fmt.Errorf("stdout does not contain %q\n%s", s, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stderrShouldContain(s string) error {
	if !strings.Contains(testCtx.LastStderr, s) {
		return fmt.Errorf("stderr does not contain %q\n%s", s, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stderrShouldNotContain(s string) error {
	if strings.Contains(testCtx.LastStderr, s) {
		return fmt.Errorf("stderr unexpectedly contains %q\n%s", s, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) firstStderrLineShouldStartWith(prefix string) error {
	first, _, _ := strings.Cut(testCtx.LastStderr, "\n")
	if !strings.HasPrefix(first, prefix) {
		return fmt.Errorf("first stderr line %q does not start with %q", first, prefix)
	}
	return nil
}

func (testCtx *TestContext) trail() []string {
	for _, line := range strings.Split(testCtx.LastStderr, "\n") {
		if rest, ok := strings.CutPrefix(line, "TRIED_METHODS:"); ok {
			if rest == "" {
				return nil
			}
			return strings.Split(rest, ",")
		}
	}
	return nil
}

func (testCtx *TestContext) theTrailShouldList(n int, last string) error {
	trail := testCtx.trail()
	if len(trail) != n {
		return fmt.Errorf("expected %d trail entries, got %d: %v", n, len(trail), trail)
	}
	if trail[len(trail)-1] != last {
		return fmt.Errorf("trail ends with %q, want %q", trail[len(trail)-1], last)
	}
	if !slices.Contains(trail, "pyzbar:original:rot0") {
		return fmt.Errorf("trail misses the first attempt: %v", trail)
	}
	return nil
}

func (testCtx *TestContext) stdoutShouldListLines(first, second string) error {
	got := strings.Split(strings.TrimRight(testCtx.LastStdout, "\n"), "\n")
	want := []string{first, second}
	slices.Sort(got)
	slices.Sort(want)
	if !slices.Equal(got, want) {
		return fmt.Errorf("stdout lines %q, want %q in any order\n%s", got, want, testCtx.describe())
	}
	return nil
}

func (testCtx *TestContext) stdoutShouldBeJSON(payload, strategy string) error {
	var doc struct {
		Payloads []string `json:"payloads"`
		Strategy string   `json:"strategy"`
	}
	if err := json.Unmarshal([]byte(testCtx.LastStdout), &doc); err != nil {
		return fmt.Errorf("stdout is not JSON: %w\n%s", err, testCtx.describe())
	}
	if !slices.Equal(doc.Payloads, []string{payload}) {
		return fmt.Errorf("payloads %v, want [%s]", doc.Payloads, payload)
	}
	if doc.Strategy != strategy {
		return fmt.Errorf("strategy %q, want %q", doc.Strategy, strategy)
	}
	return nil
}

func (testCtx *TestContext) theFileShouldContain(name, s string) error {
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return err
	}
	if !strings.Contains(string(data), s) {
		return fmt.Errorf("%s does not contain %q", name, s)
	}
	return nil
}
