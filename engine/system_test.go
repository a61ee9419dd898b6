package engine

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meysamhadeli/selfie/call_stack"
	"github.com/meysamhadeli/selfie/engine/contracts"
	"github.com/meysamhadeli/selfie/snapshot"
	"github.com/meysamhadeli/selfie/testutil"
)

const (
	appSnapshots = "/src/com/acme/AppTest.ss"
	appSource    = "/src/com/acme/AppTest.java"
)

// greetCall points at AppTest.java, which readonly and interactive mode scan for writable comments.
var greetCall = call_stack.Of(call_stack.CallLocation{TypeName: "com.acme.AppTest", Method: "greet", FileName: "AppTest.java", Line: 1})

func newTestSystem(mode Mode, files *testutil.MemFS, discovery contracts.ITestDiscovery) *System {
	return NewSystem(Options{
		Layout:    testutil.NewLayout(files),
		Mode:      mode,
		Discovery: discovery,
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

// runTest drives one test of com.acme.AppTest the way a test framework would.
func runTest(t *testing.T, system *System, test string, body func(ctx context.Context)) {
	t.Helper()
	progress := system.ForClass("com.acme.AppTest")
	require.NoError(t, progress.IncrementContainers())
	ctx, err := progress.StartTest(context.Background(), test)
	require.NoError(t, err)
	body(ctx)
	require.NoError(t, progress.FinishedTestWithSuccess(test, true))
	require.NoError(t, progress.DecrementContainersWithSuccess(true))
}

func TestSystem_OverwriteWritesTestAndSubSnapshots(t *testing.T) {
	files := testutil.NewMemFS()
	system := newTestSystem(Overwrite, files, testutil.Discovery{"com.acme.AppTest": {"greet"}})

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").ToMatchDisk()
		require.NoError(t, err)
		_, err = system.ExpectString(ctx, "HELLO").ToMatchDisk("loud")
		require.NoError(t, err)
	})
	require.NoError(t, system.FinishedAllTests())

	content, ok := files.Get(appSnapshots)
	require.True(t, ok)
	assert.Equal(t, "╔═ greet ═╗\nHello\n╔═ greet/loud ═╗\nHELLO\n╔═ [end of file] ═╗\n", content)
}

func TestSystem_ReadonlyComparesWithDisk(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	files.Set(appSnapshots, "╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n")
	system := newTestSystem(Readonly, files, nil)

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk()
		require.NoError(t, err)

		_, err = system.ExpectString(ctx, "Goodbye").At(greetCall).ToMatchDisk()
		var failure *testutil.AssertionFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "Hello", failure.Expected)
		assert.Equal(t, "Goodbye", failure.Actual)
		assert.Equal(t, "Snapshot mismatch at L1:C1\n-Hello\n+Goodbye", failure.Message)

		_, err = system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk("missing")
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Equal(t, "Snapshot not found", notFound.Error())
	})
	require.NoError(t, system.FinishedAllTests())

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, "╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n", content)
}

func TestSystem_MismatchOnlyShowsFacetsWhichDiffer(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	files.Set(appSnapshots, "╔═ greet ═╗\nsame\n╔═ greet[a] ═╗\nold\n╔═ greet[b] ═╗\nsame\n╔═ [end of file] ═╗\n")
	system := newTestSystem(Readonly, files, nil)

	runTest(t, system, "greet", func(ctx context.Context) {
		actual := snapshot.OfString("same")
		actual, err := actual.PlusFacet("a", snapshot.StringValue("new"))
		require.NoError(t, err)
		actual, err = actual.PlusFacet("b", snapshot.StringValue("same"))
		require.NoError(t, err)

		_, err = system.Expect(ctx, actual).At(greetCall).ToMatchDisk()
		var failure *testutil.AssertionFailure
		require.ErrorAs(t, err, &failure)
		assert.Equal(t, "╔═ [a] ═╗\nold", failure.Expected)
		assert.Equal(t, "╔═ [a] ═╗\nnew", failure.Actual)
	})
}

func TestSystem_InteractiveModeNeedsTodoOrComment(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	system := newTestSystem(Interactive, files, nil)

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk()
		var notFound *NotFoundError
		require.ErrorAs(t, err, &notFound)
		assert.Contains(t, notFound.Error(), "adding `_TODO` to the function name")
	})
}

func TestSystem_GarbageCollectsSnapshotsOfTestsWhichRan(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	files.Set(appSnapshots, "╔═ greet ═╗\nHello\n╔═ greet/old ═╗\nstale\n╔═ other ═╗\nkept\n╔═ removed ═╗\ngone\n╔═ [end of file] ═╗\n")
	system := newTestSystem(Readonly, files, testutil.Discovery{"com.acme.AppTest": {"greet", "other"}})

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk()
		require.NoError(t, err)
	})
	require.NoError(t, system.FinishedAllTests())

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, "╔═ greet ═╗\nHello\n╔═ other ═╗\nkept\n╔═ [end of file] ═╗\n", content)
}

func TestSystem_PreserveKeepsSnapshots(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	original := "╔═ greet ═╗\nHello\n╔═ greet/windows ═╗\nonly on windows\n╔═ [end of file] ═╗\n"
	files.Set(appSnapshots, original)
	system := newTestSystem(Readonly, files, testutil.Discovery{"com.acme.AppTest": {"greet"}})

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk()
		require.NoError(t, err)
		require.NoError(t, PreserveSelfiesOnDisk(ctx, "windows"))
	})

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, original, content)
}

func TestSystem_DeletesFileOfClassWhichUsesNoSnapshots(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSnapshots, "╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n")
	system := newTestSystem(Interactive, files, testutil.Discovery{"com.acme.AppTest": {"greet"}})

	runTest(t, system, "greet", func(ctx context.Context) {})

	_, ok := files.Get(appSnapshots)
	assert.False(t, ok)
}

func TestSystem_FailedTestKeepsItsSnapshots(t *testing.T) {
	files := testutil.NewMemFS()
	original := "╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n"
	files.Set(appSnapshots, original)
	system := newTestSystem(Interactive, files, testutil.Discovery{"com.acme.AppTest": {"greet"}})

	progress := system.ForClass("com.acme.AppTest")
	require.NoError(t, progress.IncrementContainers())
	_, err := progress.StartTest(context.Background(), "greet")
	require.NoError(t, err)
	require.NoError(t, progress.FinishedTestWithSuccess("greet", false))
	require.NoError(t, progress.DecrementContainersWithSuccess(true))

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, original, content)
}

func TestSystem_WithoutDiscoveryNothingIsPruned(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set(appSource, "class AppTest {}\n")
	original := "╔═ greet ═╗\nHello\n╔═ unknown ═╗\nkept\n╔═ [end of file] ═╗\n"
	files.Set(appSnapshots, original)
	files.Set("/src/com/acme/GoneTest.ss", "╔═ [end of file] ═╗\n")
	system := newTestSystem(Readonly, files, nil)

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").At(greetCall).ToMatchDisk()
		require.NoError(t, err)
	})
	require.NoError(t, system.FinishedAllTests())

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, original, content)
	_, ok := files.Get("/src/com/acme/GoneTest.ss")
	assert.True(t, ok)
}

func TestSystem_DeletesSnapshotFilesOfRemovedClasses(t *testing.T) {
	files := testutil.NewMemFS()
	files.Set("/src/com/acme/GoneTest.ss", "╔═ greet ═╗\nbye\n╔═ [end of file] ═╗\n")
	files.Set("/src/com/acme/notes.txt", "not a snapshot")
	system := newTestSystem(Overwrite, files, testutil.Discovery{"com.acme.AppTest": {"greet"}})

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").ToMatchDisk()
		require.NoError(t, err)
	})
	require.NoError(t, system.FinishedAllTests())

	assert.Equal(t, []string{appSnapshots, "/src/com/acme/notes.txt"}, files.Paths())
}

func TestSystem_UnknownTestsOfClassKeepTheirSnapshots(t *testing.T) {
	for name, discovery := range map[string]testutil.Discovery{
		"tests of class unknown": {"com.acme.AppTest": nil},
		"class unknown":          {},
	} {
		t.Run(name, func(t *testing.T) {
			files := testutil.NewMemFS()
			files.Set(appSnapshots, "╔═ adds ═╗\n3\n╔═ adds/twice ═╗\n6\n╔═ greet ═╗\nHi\n╔═ [end of file] ═╗\n")
			system := newTestSystem(Overwrite, files, discovery)

			runTest(t, system, "greet", func(ctx context.Context) {
				_, err := system.ExpectString(ctx, "Hello").ToMatchDisk()
				require.NoError(t, err)
			})

			content, _ := files.Get(appSnapshots)
			assert.Equal(t, "╔═ adds ═╗\n3\n╔═ adds/twice ═╗\n6\n╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n", content)
		})
	}
}

func TestSystem_UnusedFileOfClassWithUnknownTestsIsKept(t *testing.T) {
	files := testutil.NewMemFS()
	original := "╔═ adds ═╗\n3\n╔═ [end of file] ═╗\n"
	files.Set(appSnapshots, original)
	system := newTestSystem(Interactive, files, testutil.Discovery{"com.acme.AppTest": nil})

	runTest(t, system, "greet", func(ctx context.Context) {})
	require.NoError(t, system.FinishedAllTests())

	content, ok := files.Get(appSnapshots)
	require.True(t, ok)
	assert.Equal(t, original, content)
}

func TestSystem_WrittenThenStaleIsAnError(t *testing.T) {
	files := testutil.NewMemFS()
	system := newTestSystem(Overwrite, files, testutil.Discovery{})

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").ToMatchDisk()
		require.NoError(t, err)
	})
	err := system.FinishedAllTests()
	var finalize *FinalizeError
	require.ErrorAs(t, err, &finalize)
	assert.Equal(t, appSnapshots, finalize.Path.AbsolutePath)
	assert.Contains(t, finalize.Error(), "marked it stale for deletion in the same run")
	_, ok := files.Get(appSnapshots)
	assert.True(t, ok)
}

func TestSystem_RewritingTheSameValueLeavesTheFileAlone(t *testing.T) {
	files := testutil.NewMemFS()
	original := "╔═ greet ═╗\nHello\n╔═ [end of file] ═╗\n"
	files.Set(appSnapshots, original)
	system := newTestSystem(Overwrite, files, nil)

	runTest(t, system, "greet", func(ctx context.Context) {
		_, err := system.ExpectString(ctx, "Hello").ToMatchDisk()
		require.NoError(t, err)
	})

	content, _ := files.Get(appSnapshots)
	assert.Equal(t, original, content)
}

func TestSystem_FinishedAllTestsOnlyOnce(t *testing.T) {
	system := newTestSystem(Interactive, testutil.NewMemFS(), nil)
	require.NoError(t, system.FinishedAllTests())
	assert.ErrorIs(t, system.FinishedAllTests(), ErrAlreadyFinished)
}

func TestSystem_ForClassReturnsTheSameProgress(t *testing.T) {
	system := newTestSystem(Interactive, testutil.NewMemFS(), nil)
	assert.Same(t, system.ForClass("a.B"), system.ForClass("a.B"))
	assert.NotSame(t, system.ForClass("a.B"), system.ForClass("a.C"))
}

func TestClassProgress_Lifecycle(t *testing.T) {
	system := newTestSystem(Overwrite, testutil.NewMemFS(), nil)
	progress := system.ForClass("com.acme.AppTest")

	_, err := progress.StartTest(context.Background(), "a/b")
	assert.EqualError(t, err, "Test name cannot contain '/', was a/b")

	require.NoError(t, progress.IncrementContainers())
	require.NoError(t, progress.IncrementContainers())
	require.NoError(t, progress.DecrementContainersWithSuccess(true))
	_, err = progress.StartTest(context.Background(), "later")
	require.NoError(t, err)
	require.NoError(t, progress.DecrementContainersWithSuccess(true))

	_, err = progress.StartTest(context.Background(), "tooLate")
	assert.ErrorIs(t, err, ErrTerminated)
}

func TestDiskStorageFrom(t *testing.T) {
	_, err := DiskStorageFrom(context.Background())
	assert.ErrorIs(t, err, ErrNoDiskStorage)

	system := newTestSystem(Overwrite, testutil.NewMemFS(), nil)
	_, err = system.ExpectString(context.Background(), "x").ToMatchDisk()
	assert.ErrorIs(t, err, ErrNoDiskStorage)

	ctx, err := system.ForClass("a.B").StartTest(context.Background(), "test")
	require.NoError(t, err)
	storage, err := DiskStorageFrom(ctx)
	require.NoError(t, err)
	disk := storage.(*DiskStorage)
	assert.Equal(t, "test", disk.Test())
	assert.Equal(t, "a.B", disk.ClassName())
}
