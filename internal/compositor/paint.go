package compositor

import "github.com/1broseidon/xcomp/internal/platform"

// Paint recomposites the screen inside damage and presents the result.
// Ownership of damage transfers to Paint, which destroys it. None repaints
// the whole screen.
func (c *Compositor) Paint(damage platform.Region) {
	if damage == platform.None {
		damage = c.screenRegion()
	}
	c.ensureBuffer()
	c.backend.SetPictureClip(c.rootPicture, damage)

	geometryDirty := c.damage.GeometryDirty()

	// Front to back: draw opaque windows and carve them out of the region
	// still visible, recording what is left at each step.
	for i := 0; i < c.windows.Len(); i++ {
		w := c.windows.At(i)
		if !w.Mapped || !w.Damaged {
			continue
		}
		if !w.onScreen(c.width, c.height) {
			continue
		}
		if !c.ensureSource(w) {
			continue
		}
		if geometryDirty {
			c.destroyRegion(&w.borderSize)
			c.destroyRegion(&w.extents)
			c.destroyRegion(&w.borderClip)
		}
		if w.borderSize == platform.None {
			w.borderSize = c.borderSizeRegion(w)
		}
		if w.extents == platform.None {
			w.extents = c.extentsRegion(w)
		}

		if w.Mode == Opaque {
			c.backend.SetPictureClip(c.rootBuffer, damage)
			c.backend.SubtractRegion(damage, damage, w.borderSize)
			c.backend.Composite(platform.OpSrc, w.picture, platform.None, c.rootBuffer,
				w.X, w.Y, w.OuterWidth(), w.OuterHeight())
		}

		if w.borderClip == platform.None {
			w.borderClip = c.backend.CreateRegion(nil)
			c.backend.CopyRegion(w.borderClip, damage)
		}
	}

	// Whatever no opaque window covered shows the background.
	c.backend.SetPictureClip(c.rootBuffer, damage)
	c.paintRoot()

	// Back to front: blend translucent windows inside the area that stayed
	// visible above them.
	for i := c.windows.Len() - 1; i >= 0; i-- {
		w := c.windows.At(i)
		if w.borderClip == platform.None {
			continue
		}
		c.backend.SetPictureClip(c.rootBuffer, w.borderClip)

		if w.Mode == Translucent || w.Mode == ARGB {
			c.backend.IntersectRegion(w.borderClip, w.borderClip, w.borderSize)
			c.backend.SetPictureClip(c.rootBuffer, w.borderClip)
			c.backend.Composite(platform.OpOver, w.picture, w.alphaMask, c.rootBuffer,
				w.X, w.Y, w.OuterWidth(), w.OuterHeight())
		}

		c.destroyRegion(&w.borderClip)
	}

	c.backend.DestroyRegion(damage)

	if c.rootBuffer != c.rootPicture {
		c.backend.SetPictureClip(c.rootBuffer, platform.None)
		c.backend.Composite(platform.OpSrc, c.rootBuffer, platform.None, c.rootPicture,
			0, 0, c.width, c.height)
	}
	c.frames++
}

// ensureBuffer creates the off-screen frame buffer. When that fails the
// compositor draws straight to the root picture.
func (c *Compositor) ensureBuffer() {
	if c.rootBuffer != platform.None {
		return
	}
	buffer, err := c.backend.CreateBufferPicture(c.width, c.height)
	if err != nil {
		c.logger.Debug("frame buffer unavailable, drawing to root", "error", err)
		c.rootBuffer = c.rootPicture
		return
	}
	c.rootBuffer = buffer
}

// ensureSource realizes the window's pixmap and picture.
func (c *Compositor) ensureSource(w *Window) bool {
	if w.picture != platform.None {
		return true
	}
	if w.pixmap == platform.None {
		pixmap, err := c.backend.NameWindowPixmap(w.ID)
		if err != nil {
			c.logger.Debug("name window pixmap failed", "window", w, "error", err)
		} else {
			w.pixmap = pixmap
		}
	}
	picture, err := c.backend.CreateWindowPicture(w.ID, w.pixmap, w.Visual)
	if err != nil {
		c.logger.Debug("create window picture failed", "window", w, "error", err)
		return false
	}
	w.picture = picture
	return true
}

func (c *Compositor) paintRoot() {
	if c.rootTile == platform.None {
		c.rootTile = c.createRootTile()
	}
	c.backend.Composite(platform.OpSrc, c.rootTile, platform.None, c.rootBuffer,
		0, 0, c.width, c.height)
}

// createRootTile wraps the published wallpaper pixmap, or a flat fallback
// color when none is published.
func (c *Compositor) createRootTile() platform.Picture {
	if pixmap, ok := c.backend.RootPixmap(c.opts.BackgroundProperties); ok {
		tile, err := c.backend.CreateTilePicture(pixmap)
		if err == nil {
			return tile
		}
		c.logger.Debug("wallpaper picture failed, using fallback color", "error", err)
	}
	tile, err := c.backend.CreateFillPicture(*c.opts.FallbackColor)
	if err != nil {
		c.logger.Debug("fallback background failed", "error", err)
		return platform.None
	}
	return tile
}

// dropRootTile forgets the cached background so it is rebuilt on next paint.
func (c *Compositor) dropRootTile() {
	if c.rootTile != platform.None {
		c.backend.FreePicture(c.rootTile)
		c.rootTile = platform.None
	}
}

// resizeRoot follows a change of screen size.
func (c *Compositor) resizeRoot(width, height int) {
	if c.rootBuffer != platform.None && c.rootBuffer != c.rootPicture {
		c.backend.FreePicture(c.rootBuffer)
	}
	c.rootBuffer = platform.None
	c.width, c.height = width, height
	c.damage.MarkGeometry()
	c.DamageScreen()
	c.logger.Info("screen resized", "width", width, "height", height)
}
