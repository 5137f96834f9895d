package support

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cucumber/godog"
)

// RegisterCommandSteps registers the steps that run commands and inspect
// their output.
func (testCtx *TestContext) RegisterCommandSteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "([^"]*)"$`, testCtx.iRun)
	sc.Step(`^the environment variable "([^"]*)" is "([^"]*)"$`, testCtx.theEnvironmentVariableIs)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the command should fail with "([^"]*)"$`, testCtx.theCommandShouldFailWith)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the output should be "([^"]*)"$`, testCtx.theOutputShouldBe)
	sc.Step(`^the JSON output field "([^"]*)" should be (-?\d+(?:\.\d+)?)$`, testCtx.theJSONOutputFieldShouldBeNumber)
	sc.Step(`^the JSON output field "([^"]*)" should be "([^"]*)"$`, testCtx.theJSONOutputFieldShouldBeString)
}

func (testCtx *TestContext) iRun(commandLine string) error {
	testCtx.Run(commandLine)
	return nil
}

func (testCtx *TestContext) theEnvironmentVariableIs(key, value string) error {
	if _, tracked := testCtx.prevEnv[key]; !tracked {
		if v, ok := os.LookupEnv(key); ok {
			testCtx.prevEnv[key] = &v
		} else {
			testCtx.prevEnv[key] = nil
		}
	}
	return os.Setenv(key, value)
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("command %q failed: %w\nlogs:\n%s", testCtx.LastCommand, testCtx.LastError, testCtx.LastLogs)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("command %q succeeded, output:\n%s", testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFailWith(message string) error {
	if err := testCtx.theCommandShouldFail(); err != nil {
		return err
	}
	if !strings.Contains(testCtx.LastError.Error(), message) {
		return fmt.Errorf("error %q does not contain %q", testCtx.LastError, message)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(text string) error {
	if !strings.Contains(testCtx.LastOutput, text) {
		return fmt.Errorf("output does not contain %q:\n%s", text, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBe(text string) error {
	if got := strings.TrimSpace(testCtx.LastOutput); got != text {
		return fmt.Errorf("output is %q, want %q", got, text)
	}
	return nil
}

func (testCtx *TestContext) theJSONOutputFieldShouldBeNumber(path string, want float64) error {
	v, err := jsonField([]byte(testCtx.LastOutput), path)
	if err != nil {
		return err
	}
	return expectNumber(path, v, want)
}

func (testCtx *TestContext) theJSONOutputFieldShouldBeString(path, want string) error {
	v, err := jsonField([]byte(testCtx.LastOutput), path)
	if err != nil {
		return err
	}
	return expectString(path, v, want)
}

// jsonField walks a dotted path such as "0.corners.2.x" through a decoded
// JSON document. Numeric segments index arrays.
func jsonField(data []byte, path string) (any, error) {
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("output is not valid JSON: %w\n%s", err, data)
	}
	cur := doc
	for _, seg := range strings.Split(path, ".") {
		switch node := cur.(type) {
		case map[string]any:
			v, ok := node[seg]
			if !ok {
				return nil, fmt.Errorf("field %q not found in %q", seg, path)
			}
			cur = v
		case []any:
			i, err := strconv.Atoi(seg)
			if err != nil || i < 0 || i >= len(node) {
				return nil, fmt.Errorf("index %q out of range in %q", seg, path)
			}
			cur = node[i]
		default:
			return nil, fmt.Errorf("cannot descend into %q of %q", seg, path)
		}
	}
	return cur, nil
}

func expectNumber(path string, v any, want float64) error {
	got, ok := v.(float64)
	if !ok {
		return fmt.Errorf("field %q is %T, not a number", path, v)
	}
	if got != want {
		return fmt.Errorf("field %q is %v, want %v", path, got, want)
	}
	return nil
}

func expectString(path string, v any, want string) error {
	got, ok := v.(string)
	if !ok {
		return errors.New("field " + strconv.Quote(path) + " is not a string")
	}
	if got != want {
		return fmt.Errorf("field %q is %q, want %q", path, got, want)
	}
	return nil
}
