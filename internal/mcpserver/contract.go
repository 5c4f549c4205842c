package mcpserver

import "strings"

const libraryLayout = `# camroll Library Layout

camroll indexes photos and videos kept under one library directory.

## Collections

| Kind  | Collection | Locator example    | Indexed extensions                   |
|-------|------------|--------------------|--------------------------------------|
| image | images     | media://images/12  | jpg, jpeg, png, gif, webp, heic      |
| video | videos     | media://videos/3   | mp4, m4v, mov, webm, 3gp, mkv, avi   |

Imports are sniffed from their first bytes, which recognises jpeg, png,
gif, webp, mp4, webm and avi.

Locators are opaque. Do not build them from file names; take them from
list_media, get_media or import_media.

## Capture

- Photos are saved as JPEG under Pictures/CameraApp.
- Videos are saved as MP4 under Movies/CameraApp.
- Display names are the capture time as yyyyMMdd_HHmmss.

## Imports

import_media stores files under {{import_dir}}. The kind follows the
content: a PNG sent with a .mp4 name is still an image. Content that is
neither an image nor a video is rejected.

## Ordering

Galleries list every image, most recently added first, followed by every
video, most recently added first.
`

// LibraryLayout describes where files live and what the index accepts.
func LibraryLayout(importDir string) string {
	return strings.ReplaceAll(libraryLayout, "{{import_dir}}", importDir)
}
