package utils

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/oklog/ulid"
	"golang.org/x/sync/errgroup"
	"sigs.k8s.io/yaml"

	"github.com/reservoir-data/tap-pushbullet/crypto"
)

// Ternary is the missing conditional operator
func Ternary(cond bool, a, b any) any {
	if cond {
		return a
	}
	return b
}

// ArrayContains returns the index of the first element matching the check
func ArrayContains[T any](array []T, check func(elem T) bool) (int, bool) {
	for idx, elem := range array {
		if check(elem) {
			return idx, true
		}
	}

	return -1, false
}

// Unmarshal serializes and deserializes any from into the object
// return error if occurred
func Unmarshal(from, object any) error {
	reformatted := reformatInnerMaps(from)
	b, err := json.Marshal(reformatted)
	if err != nil {
		return fmt.Errorf("error marshaling object: %s", err)
	}
	err = json.Unmarshal(b, object)
	if err != nil {
		return fmt.Errorf("error unmarshaling from object: %s", err)
	}

	return nil
}

// reformatInnerMaps converts all map[any]any into map[string]any
// because json.Marshal doesn't support map[any]any
func reformatInnerMaps(valueI any) any {
	switch value := valueI.(type) {
	case []any:
		for i, subValue := range value {
			value[i] = reformatInnerMaps(subValue)
		}
		return value
	case map[any]any:
		newMap := make(map[string]any, len(value))
		for k, subValue := range value {
			newMap[fmt.Sprint(k)] = reformatInnerMaps(subValue)
		}
		return newMap
	case map[string]any:
		for k, subValue := range value {
			value[k] = reformatInnerMaps(subValue)
		}
		return value
	default:
		return valueI
	}
}

// UnmarshalFile reads a JSON or YAML file into the destination, running the
// content through config decryption first when asked to.
func UnmarshalFile(filePath string, dest any, decrypt bool) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %s", filePath, err)
	}

	content := string(data)
	if decrypt {
		content, err = crypto.DecryptJSONString(content)
		if err != nil {
			return fmt.Errorf("failed to decrypt file %s: %s", filePath, err)
		}
	}

	switch strings.ToLower(filepath.Ext(filePath)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal([]byte(content), dest)
	default:
		err = json.Unmarshal([]byte(content), dest)
	}
	if err != nil {
		return fmt.Errorf("failed to unmarshal file %s: %s", filePath, err)
	}

	return nil
}

// ULID returns a lexicographically sortable unique id; thread identifiers
// are built from these so log lines sort in spawn order.
func ULID() string {
	entropy := ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0)
	return ulid.MustNew(ulid.Timestamp(time.Now()), entropy).String()
}

// Concurrent runs execute over the array with bounded concurrency, stopping
// on the first failure
func Concurrent[T any](ctx context.Context, array []T, concurrency int, execute func(ctx context.Context, one T, executionNumber int) error) error {
	if concurrency < 1 {
		concurrency = 1
	}

	group, ctx := errgroup.WithContext(ctx)
	group.SetLimit(concurrency)

	for idx, one := range array {
		group.Go(func() error {
			return execute(ctx, one, idx+1)
		})
	}

	return group.Wait()
}

// CxGroup carries an errgroup with its context so goroutine owners can hand
// both around as one value
type CxGroup struct {
	group *errgroup.Group
	ctx   context.Context
}

func NewCGroup(ctx context.Context) *CxGroup {
	group, ctx := errgroup.WithContext(ctx)
	return &CxGroup{
		group: group,
		ctx:   ctx,
	}
}

func (c *CxGroup) Ctx() context.Context {
	return c.ctx
}

func (c *CxGroup) Add(executor func(ctx context.Context) error) {
	c.group.Go(func() error {
		return executor(c.ctx)
	})
}

// Block waits for all added executors and returns the first error
func (c *CxGroup) Block() error {
	return c.group.Wait()
}
