// Package imgview is an interactive single-image viewport for [Ebitengine].
//
// A [Viewport] displays one image, optionally next to a comparison image, and
// lets the user pan by dragging, zoom with the wheel or discrete steps, and
// fit the image around a side panel whose reserved width animates. It tells
// clicks from drags, keeps hover buttons, the loading spinner and the
// comparison divider aligned with the transformed image, and reports what
// happened through commands.
//
// # Quick start
//
// The simplest way to get started is [Run], which creates a window and game
// loop for you:
//
//	v := imgview.NewViewport(imgview.DefaultConfig(),
//		imgview.WithBitmapFactory(imgview.EbitenBitmap))
//	v.SetImageURL("photo.webp")
//	v.On(imgview.CommandActivate, func(e imgview.CommandEvent) {
//		fmt.Println("open editor at zoom", e.Zoom)
//	})
//	imgview.Run(v, imgview.RunConfig{Title: "viewer", Width: 1280, Height: 800})
//
// For full control, implement [ebiten.Game] yourself: call [Viewport.Tick]
// and an [InputPoller] from Update, [Viewport.Draw] with an [EbitenSurface]
// from Draw, and [Viewport.SetCanvasSize] from Layout.
//
// # Transform
//
// Image pixels map to the screen as
//
//	screen = screenCenter + pan + (p - imageCenter) * zoom
//
// where screenCenter is the canvas center shifted right by half the panel
// width. Pan is in raw screen pixels. Zoom is clamped between the zoom that
// keeps the image's smaller side 500px on screen and [Config.MaxZoom]. The
// same mapping drives drawing, hit testing and overlays ([Model],
// [Geometry]).
//
// # Rendering
//
// [Renderer] paints a [Frame] onto any [Surface]: [EbitenSurface] on the GPU,
// or [SoftwareSurface] on the CPU for headless snapshots. [RenderMode]
// selects [Single], [Split] (draggable divider) or [SideBySide]. While the
// displayed image is being regenerated ([Viewport.SetGenerating]) it is drawn
// blurred.
//
// # Images
//
// Images decode on background goroutines through a [Loader]. A result is
// applied on the next [Viewport.Tick] only if its URL is still the one
// requested; superseded results are dropped. PNG, JPEG, GIF and WebP are
// supported.
//
// # Testing
//
// [Viewport.InjectClick], [Viewport.InjectDrag] and JSON scripts loaded with
// [LoadTestScript] drive the viewport without a real pointer, and
// [Viewport.Screenshot] writes labeled PNGs.
//
// [Ebitengine]: https://ebitengine.org
package imgview
